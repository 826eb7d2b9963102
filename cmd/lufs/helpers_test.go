package main_test

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/containerd/nerdctl/mod/tigron/test"
	"github.com/containerd/nerdctl/mod/tigron/tig"
)

// expectContains returns a comparator verifying the output contains a substring.
func expectContains(substr string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		if !strings.Contains(stdout, substr) {
			testing.Log(fmt.Sprintf("expected substring %q not found in output:\n%s", substr, stdout))
			testing.Fail()
		}
	}
}

// expectLUFS returns a comparator verifying the first "integrated" value is within 0.2 LU of want.
func expectLUFS(want float64) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		for line := range strings.SplitSeq(stdout, "\n") {
			_, value, found := strings.Cut(line, "integrated:")
			if !found {
				continue
			}

			var got float64
			if _, err := fmt.Sscanf(strings.TrimSpace(value), "%f LUFS", &got); err != nil {
				break
			}

			if math.Abs(got-want) > 0.2 {
				testing.Log(fmt.Sprintf("expected %.1f LUFS, got %.1f in output:\n%s", want, got, stdout))
				testing.Fail()
			}

			return
		}

		testing.Log(fmt.Sprintf("no integrated loudness found in output:\n%s", stdout))
		testing.Fail()
	}
}

// writeSine writes seconds of a stereo 997 Hz tone as s16le at 48 kHz and returns its path.
func writeSine(t *testing.T, name string, amplitude, seconds float64) string {
	t.Helper()

	const rate = 48000

	frames := int(seconds * rate)
	data := make([]byte, 0, frames*4)

	for i := range frames {
		v := int16(math.Round(amplitude * 32767 * math.Sin(2*math.Pi*997*float64(i)/rate)))
		data = binary.LittleEndian.AppendUint16(data, uint16(v))
		data = binary.LittleEndian.AppendUint16(data, uint16(v))
	}

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}
