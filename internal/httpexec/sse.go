package httpexec

import (
	"bufio"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/siumai/siumai/internal/streamconv"
)

// decompressReader wraps resp.Body according to Content-Encoding (gzip +
// brotli, the two encodings providers in this pack actually send).
func decompressReader(resp *http.Response) (io.Reader, error) {
	var body io.Reader = resp.Body
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		body = gz
	case "br":
		body = brotli.NewReader(resp.Body)
	}
	return body, nil
}

// sseFrame is one parsed "event: foo\ndata: bar" SSE record.
type sseFrame struct {
	event string
	data  []byte
	done  bool // true for the "data: [DONE]" sentinel
}

// scanSSE reads resp.Body line by line, reassembling "event:"/"data:"
// pairs into frames, grounded on proxy.go's handleStreamingResponse scanner
// loop (bufio.Scanner over lines, skipping blank lines/SSE comments,
// detecting the literal "data: [DONE]" sentinel) generalized from
// "transform then re-emit to an http.ResponseWriter" into "yield frames to
// a callback", since the library has no inbound connection to write to.
func scanSSE(r io.Reader, onFrame func(sseFrame) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var pendingEvent string
	var pendingData strings.Builder
	haveData := false

	flush := func() error {
		if !haveData {
			return nil
		}
		data := pendingData.String()
		pendingData.Reset()
		event := pendingEvent
		pendingEvent = ""
		haveData = false

		if data == "[DONE]" {
			return onFrame(sseFrame{done: true})
		}
		return onFrame(sseFrame{event: event, data: []byte(data)})
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue // SSE comment
		}
		if strings.HasPrefix(line, "event:") {
			pendingEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if strings.HasPrefix(line, "data:") {
			if haveData {
				pendingData.WriteByte('\n')
			}
			pendingData.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			haveData = true
			continue
		}
		// Unrecognized SSE field (id:, retry:, ...): ignored, forward-compatible.
	}
	if err := flush(); err != nil {
		return err
	}
	return scanner.Err()
}

func toConverterFrame(f sseFrame) streamconv.Frame {
	return streamconv.Frame{Event: f.event, Data: f.data}
}
