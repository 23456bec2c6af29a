package osmpipe

var Version string

// buildVersion gets replaced while building with
// go build -ldflags "-X github.com/omniscale/osmpipe.buildVersion=1234"
var buildVersion string

func init() {
	Version = "0.1.0"
	Version += buildVersion
}
