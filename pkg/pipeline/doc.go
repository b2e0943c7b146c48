// Package pipeline adds packs to an extracted CodeQL bundle.
//
// A run is a fixed sequence of stages. Each stage receives the enumeration
// of packs produced by the previous one and returns a fresh enumeration of
// the state it leaves behind, so no stage reads the repository before the
// previous stage's mutations are complete:
//
//	select           enumerate the workspace and pick the requested packs
//	bundle-libraries bundle the library packs into the bundle
//	weave            weave customization packs into their base packs
//	verify-graph     reject dependency cycles in the woven bundle
//	create-queries   package the query packs into the bundle
//	cascade          recompile query packs depending on a woven pack
//	replicate        copy the result into the other platform bundles
package pipeline
