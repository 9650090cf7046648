package transform

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// progressUpdate is one decoded block of the engine's machine-readable
// progress stream.
type progressUpdate struct {
	OutTimeSeconds float64
	Speed          float64
	Done           bool
}

// parseProgress consumes the engine's `-progress pipe:1` key=value stream and
// invokes emit once per update block. Blocks are terminated by a
// `progress=continue` or `progress=end` line.
func parseProgress(r io.Reader, emit func(progressUpdate)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var current progressUpdate
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "out_time_us", "out_time_ms":
			// Despite the name, recent engine builds emit microseconds under
			// both keys.
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				current.OutTimeSeconds = float64(us) / 1e6
			}
		case "out_time":
			if current.OutTimeSeconds == 0 {
				current.OutTimeSeconds = parseClockTime(value)
			}
		case "speed":
			if parsed, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64); err == nil {
				current.Speed = parsed
			}
		case "progress":
			current.Done = value == "end"
			emit(current)
			current = progressUpdate{}
		}
	}
	return scanner.Err()
}

// parseClockTime converts HH:MM:SS.micros to seconds, returning 0 on any
// malformed component.
func parseClockTime(value string) float64 {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0
	}
	hours, err1 := strconv.ParseFloat(parts[0], 64)
	minutes, err2 := strconv.ParseFloat(parts[1], 64)
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}
	return hours*3600 + minutes*60 + seconds
}

// percentOf maps an output timestamp onto [0, 99]. The terminal event is the
// only place 100 can come from; a duration estimate is never allowed to claim
// completion on its own.
func percentOf(outSeconds, totalSeconds float64) int {
	if totalSeconds <= 0 {
		return 0
	}
	percent := int(outSeconds / totalSeconds * 100)
	if percent < 0 {
		return 0
	}
	if percent > 99 {
		return 99
	}
	return percent
}
