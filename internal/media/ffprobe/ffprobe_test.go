package ffprobe

import (
	"math"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Width: 1920, Height: 1080},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if width, height := result.Dimensions(); width != 1920 || height != 1080 {
		t.Fatalf("unexpected dimensions: %dx%d", width, height)
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}

func TestValidateUpload(t *testing.T) {
	cases := []struct {
		name    string
		result  Result
		wantErr bool
	}{
		{
			"video with duration",
			Result{
				Streams: []Stream{{CodecType: "video"}},
				Format:  Format{Duration: "10.0"},
			},
			false,
		},
		{
			"video and audio",
			Result{
				Streams: []Stream{{CodecType: "video"}, {CodecType: "audio"}},
				Format:  Format{Duration: "3.5"},
			},
			false,
		},
		{
			"audio only",
			Result{
				Streams: []Stream{{CodecType: "audio"}},
				Format:  Format{Duration: "12.5"},
			},
			true,
		},
		{
			"no streams",
			Result{Format: Format{Duration: "10.0"}},
			true,
		},
		{
			"missing duration",
			Result{Streams: []Stream{{CodecType: "video"}}},
			true,
		},
		{
			"unparseable duration",
			Result{
				Streams: []Stream{{CodecType: "video"}},
				Format:  Format{Duration: "N/A"},
			},
			true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.result.ValidateUpload()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
