package logging

import (
	"io"
	"os"

	"github.com/vireo-systems/warden/internal/spec"
)

// nopCloser adapts an io.Writer that must not be closed by its caller
// (os.Stdout, os.Stderr) into an io.WriteCloser.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// OpenSink resolves a spec.Sink into the io.WriteCloser a spawned
// process's stdout or stderr should be redirected to. SinkFile sinks
// get a rotating FileSink; the inherit kinds return the supervisor's
// own stdout/stderr wrapped so callers can treat every sink uniformly.
func OpenSink(sink spec.Sink) (io.WriteCloser, error) {
	switch sink.Kind {
	case spec.SinkFile:
		return NewFileSink(sink.Path, sink.RotateSize, sink.TimestampSuffix)
	case spec.SinkInheritStderr:
		return nopCloser{os.Stderr}, nil
	case spec.SinkInheritStdout:
		fallthrough
	default:
		return nopCloser{os.Stdout}, nil
	}
}
