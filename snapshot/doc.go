// Package snapshot resolves raft snapshot references to byte streams.
//
// Every supported location scheme has its own implementation of
// interfaces.SnapshotSource, created by SourceFactory from a URI:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/backups/vault/latest.snap
//   - s3://bucket-name/vault/latest.snap?region=us-west-2
//   - s3://KEY:SECRET@bucket-name/latest.snap?endpoint=http://minio:9000&path_style=true
//   - ipfs://ipfs.example.com:5001/ipfs/<cid>?timeout=1m
//   - https://backups.example.com/vault/latest.snap
//
// Any other scheme is rejected with interfaces.ErrUnsupportedSource before a
// source is created.
//
// # Mirrors
//
// Several locations can be combined with CreateMultiSource. The resulting
// MultiSource opens each location in order and returns the first stream that
// opens successfully:
//
//	locations, err := snapshot.ParseLocations([]string{
//	    "file:///var/backups/vault/latest.snap",
//	    "s3://backups/vault/latest.snap?region=eu-west-1",
//	})
//	source, err := snapshot.NewSourceFactory(logger).CreateMultiSource(locations)
//	snap, err := source.Open(ctx)
//	defer snap.Close()
//
// Streams are never buffered in memory; the caller forwards them to the
// control plane and closes them.
package snapshot
