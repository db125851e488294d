package common

// PackageName is used as the metrics namespace and the default service
// tag in logs.
const PackageName = "device_attestation_backend"

// Version is set at build time via -ldflags.
var Version = "dev"
