// Package stac provides the document model for catalogue responses.
//
// Catalogue documents are loosely typed, so features keep their
// non-standard members (assets, links, collection, ...) as a Value tree
// rather than fixed structs. Value is a small tagged union over the JSON
// variants; Extract and Resolve walk it by path.
//
// Example usage:
//
//	fc, err := stac.ParseFeatureCollection(body)
//	if err != nil {
//	    return err
//	}
//	for _, f := range fc.Features {
//	    href, ok := stac.ResolveString([]string{"assets", "PRODUCT", "href"}, &f.Members)
//	    ...
//	}
package stac
