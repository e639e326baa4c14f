package tail

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// logtailMarker tags the engine's own output; lines carrying it are
// never relayed, preventing feedback loops when the engine's logs end
// up in the watched file.
const logtailMarker = "[logtail]"

// follow reads the file from its beginning and delivers each complete
// line to the viewer exactly once, then keeps polling for appended
// data until the context is cancelled. There is no automatic retry of
// a failed watch; the caller must re-attach.
func follow(ctx context.Context, path string, pollInterval time.Duration, viewer Viewer, onError func(description string)) {
	file, err := os.Open(path)
	if err != nil {
		reportError(onError, "cannot open "+path+": "+err.Error())
		return
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var pending strings.Builder

	for {
		chunk, err := reader.ReadString('\n')
		if chunk != "" {
			pending.WriteString(chunk)
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				reportError(onError, "read failed on "+path+": "+err.Error())
				return
			}
			// Caught up; wait for the builder to append more.
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			continue
		}

		line := strings.TrimRight(pending.String(), "\r\n")
		pending.Reset()

		if line == "" || strings.Contains(line, logtailMarker) {
			continue
		}

		if err := viewer.Send(line); err != nil {
			log.Printf("%s viewer send failed: %v", logtailMarker, err)
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func reportError(onError func(string), description string) {
	log.Printf("%s %s", logtailMarker, description)
	if onError != nil {
		onError(description)
	}
}
