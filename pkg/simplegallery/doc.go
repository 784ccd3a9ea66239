// Package simplegallery implements the media ingestion core of a photo
// portfolio: untrusted uploads are verified, rendered into a fixed set of
// derivatives and catalogued under a collection.
//
// The Service is assembled from explicit collaborators:
//
//	svc, err := simplegallery.New(
//	    simplegallery.WithCatalog(memory.New()),
//	    simplegallery.WithStore(store),
//	    simplegallery.WithVerifier(verify.New(verify.Config{})),
//	    simplegallery.WithGenerator(derive.New()),
//	)
//
// Ingest runs the pipeline received -> content_verified ->
// derivatives_generated -> indexed. A failure at any stage removes every
// derivative file the upload produced, so an image is either fully present
// in the catalog with its six files or not present at all.
//
// The config and presets packages provide ready-made wiring for servers and
// tests.
package simplegallery
