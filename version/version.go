package version

// Version is the current release of the suraksha CLI & server.
const Version = "0.1.0"
