package flowd

// Version is the current release of the flowd engine.
var Version = "0.1.0"
