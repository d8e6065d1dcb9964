// Package imagecache keeps container images as tarballs on disk and loads
// them into the k0s cluster container.
//
// Images are fetched with go-containerregistry and written in the docker
// tarball format, so `k0s ctr images import` accepts them unchanged. An
// images.json index in the cache directory records what is cached.
//
// Fetches and transfers are bounded by explicit timeouts (30 minutes by
// default) and honour context cancellation.
package imagecache
