// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - syncer.LibraryStore: positions read and written by a sync round (internal/syncer/syncer.go)
//   - library.Records: book records used by the library service (internal/library/service.go)
//   - library.Blobs: cached EPUB content (internal/library/service.go)
//   - syncer.RunRecorder / http.RunHistory: sync round history (internal/database/syncruns)
//
// ## Remote Store and Credentials
//
//   - storage.RemoteStore: listing, content and the sync document (internal/storage/client.go)
//   - storage.TokenSource: access token for each remote call, served by credential.Guard
//   - credential.Store: persisted credential (internal/tokenstore, credential.MemoryStore)
//   - credential.Refresher: exchanges a refresh token (internal/oauth2/providers/google.go)
//   - oauth2.Provider: authorization code flow (internal/oauth2/provider.go)
//
// ## Background Work
//
//   - scheduler.Syncer: scheduled rounds (internal/scheduler/sync.go)
//   - tasks.Downloader: queued downloads (internal/tasks/download_book.go)
//
// # Adding a New Remote Store
//
// To sync through a store other than Google Drive:
//
//  1. Implement storage.RemoteStore in internal/storage/providers/<name>/,
//     taking the token from a storage.TokenSource on every call and mapping
//     transport errors to failure.KindNetwork, 401 to failure.KindAuthRejected
//     and other statuses to failure.Remote.
//
//  2. Implement credential.Refresher and oauth2.Provider for its OAuth server.
//
//  3. Wire both in entrypoint.Build and add compile-time checks to checks.go.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for examples.
package interfaces
