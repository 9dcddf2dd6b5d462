package memory

import (
	"log"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on the store directory and calls
// onChange(id) whenever a memory file is created or written, whether by
// a manual edit, a restore from backup, or the Store's own atomic
// rename onto <id>.md; only the Store's temporary files are skipped. It
// runs until stop is closed.
func (s *Store) Watch(onChange func(id string), stop <-chan struct{}) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(s.Dir); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				name := ev.Name
				if !strings.HasSuffix(name, ".md") {
					continue
				}
				base := name[strings.LastIndex(name, "/")+1:]
				id := strings.TrimSuffix(base, ".md")
				if strings.HasPrefix(id, ".tmp-") {
					continue
				}
				onChange(id)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("memory: watch error: %v", err)
			case <-stop:
				return
			}
		}
	}()
	return nil
}
