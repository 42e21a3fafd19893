package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/argusworks/argus/pkg/provider/recognizer"
)

// SoundDir checks that the notification sound directory exists and is a
// directory. Missing sounds degrade the product badly enough that the server
// should not report ready without them.
func SoundDir(dir string) Checker {
	return Checker{
		Name: "sounds",
		Check: func(context.Context) error {
			info, err := os.Stat(dir)
			if err != nil {
				return fmt.Errorf("sound dir %q: %w", dir, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("sound dir %q is not a directory", dir)
			}
			return nil
		},
	}
}

// WritableDir checks that the directory holding path exists and accepts
// writes, by creating and removing a probe file. Used for the utterance
// recording and image paths.
func WritableDir(name, path string) Checker {
	return Checker{
		Name: name,
		Check: func(context.Context) error {
			dir := filepath.Dir(path)
			probe, err := os.CreateTemp(dir, ".argus-probe-*")
			if err != nil {
				return fmt.Errorf("dir %q not writable: %w", dir, err)
			}
			probe.Close()
			return os.Remove(probe.Name())
		},
	}
}

// Recognizer checks that the speech recognizer backend accepts sessions.
// It opens and immediately closes one session.
func Recognizer(engine recognizer.Engine, sampleRate int) Checker {
	return Checker{
		Name: "recognizer",
		Check: func(ctx context.Context) error {
			sess, err := engine.NewSession(ctx, recognizer.Config{SampleRate: sampleRate})
			if err != nil {
				return fmt.Errorf("open session: %w", err)
			}
			return sess.Close()
		},
	}
}
