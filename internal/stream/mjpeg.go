package stream

import (
	"fmt"
	"net/http"
)

const mjpegBoundary = "frame"

// MJPEGContentType is the response content type for the live feed.
const MJPEGContentType = "multipart/x-mixed-replace; boundary=" + mjpegBoundary

// WriteMJPEG streams frames to w as an MJPEG multipart response until
// the client disconnects or the frame channel closes.
func WriteMJPEG(w http.ResponseWriter, r *http.Request, frames <-chan []byte) {
	w.Header().Set("Content-Type", MJPEGContentType)
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, len(frame))
			if _, err := w.Write(frame); err != nil {
				return
			}
			fmt.Fprint(w, "\r\n")
			flusher.Flush()
		}
	}
}
