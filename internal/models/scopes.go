package models

// Well-known scopes. Scopes are free-form strings; these are the ones the
// server's own gates require. ScopeAdmin is a wildcard.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"

	ScopeAssetUpload     = "asset:upload"
	ScopeAssetDownload   = "asset:download"
	ScopeManifestPublish = "manifest:publish"
	ScopeManifestRead    = "manifest:download"
	ScopeJobRun          = "job:run"
	ScopeJobAttach       = "job:attach"
)

// Canonical URL table. The client builds requests from these patterns and
// the server mounts its routes on them.
const (
	RouteHealth = "/health"

	RouteAuthLogin    = "/auth/login"
	RouteAuthToken    = "/auth/token"
	RouteAuthCallback = "/auth/callback"

	RouteAssets             = "/assets"
	RouteAssetsByHash       = "/assets/{hash}"
	RouteAssetsStreamByHash = "/assets/stream/{hash}"

	RouteManifest          = "/manifest"
	RouteManifestByVersion = "/manifest/{version}"

	RouteJobsRun    = "/jobs/run"
	RouteJobsAttach = "/jobs/{id}/attach"
)
