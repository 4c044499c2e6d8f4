package fieldlog

// Version is the current release of the FieldLog data core.
var Version = "0.3.0"
