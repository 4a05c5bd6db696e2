// Package files locates dataset files on disk.
//
// Discovery lists loadable data files in a directory and resolves a
// configured data path to a concrete file. A path that names a directory
// resolves to the most recently modified CSV or XLSX file inside it, so a
// deployment can drop refreshed exports next to old ones.
//
// Example usage:
//
//	discovery := files.NewDiscovery("")
//	path, err := discovery.ResolveDataFile("data")
package files
