// Package service turns per-resource configuration into source graphs and
// decodes what they return.
//
// A Factory is bound to one Environment. Local builds read bundled assets
// only. Cloud builds try the cache, then the remote endpoint, and fall back
// to the bundled asset if that whole path fails. CloudOnly builds talk to
// the remote endpoint and nothing else; asking for one without a remote URL
// fails with ErrRemoteURLRequired when the graph is built, before any
// request is made.
//
// FetchService decodes the bytes of a graph into a typed value. Every
// failure it returns carries a datasource.Kind.
package service
