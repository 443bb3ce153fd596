// Package metadata ties the heaps, the tables stream and the signature
// decoder of one CLI metadata directory into an editable model.
//
// A model is created from the bytes of a metadata directory with Load, or
// empty with New. Rows are edited through the table package or the typed
// Add* builders, then Rebuild regenerates the #~ and #Strings streams and
// recomputes the stream layout, and Bytes/WriteTo serialize the result:
//
//	md, err := metadata.Load(data, metadata.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	ref, err := md.AddTypeRef(scope, "System", "Object")
//	...
//	if _, err := md.Rebuild(); err != nil {
//	    return err
//	}
//	out, err := md.Bytes()
//
// A Metadata value is not safe for concurrent mutation. Readers may share a
// model as long as no Rebuild or Add* call runs at the same time.
package metadata
