package parley

// Version is the library release. Overridable at build time:
//
//	go build -ldflags "-X github.com/aretw0/parley.Version=v1.2.3"
var Version = "dev"
