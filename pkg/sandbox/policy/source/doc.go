// Package source loads sandbox policy documents from a local file or from a
// Git repository and watches local files for changes.
//
// # Basic Usage
//
//	src, err := source.New(cfg.Sandbox.Policy)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	store, revision, err := source.Build(ctx, src)
//
// # Git Sources
//
// A Git source clones Repository into LocalPath on first load and pulls on
// each later load. When Repository is empty an existing clone at LocalPath is
// read without any network access. The document is always read from the
// commit at the head of Branch, never from the working tree, and the commit
// hash is returned as the revision.
//
// # Watching
//
//	w, err := source.NewWatcher(path, 100*time.Millisecond, logger)
//	go w.Watch(ctx, reload)
//	defer w.Stop()
package source
