package tsan

// Version of the shim and its engine.
const (
	Version = "0.1.0"

	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

// Info describes the shim as compiled into the program.
type Info struct {
	// Version is the shim version string.
	Version string

	// Algorithm is the race detection algorithm of the engine.
	Algorithm string

	// Enabled is the build mode: true when annotations reach the engine.
	Enabled bool
}

// String formats the info the way the tsanshim tool prints it.
func (i Info) String() string {
	mode := "inactive"
	if i.Enabled {
		mode = "active"
	}
	return "tsanshim version " + i.Version + " (" + i.Algorithm + ", annotations " + mode + ")"
}

// GetInfo returns information about the shim.
//
// Example:
//
//	fmt.Println(tsan.GetInfo())
func GetInfo() Info {
	return Info{
		Version:   Version,
		Algorithm: "FastTrack",
		Enabled:   Enabled,
	}
}
