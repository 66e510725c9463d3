package common

// Version is the current cirlower version as a string.
const Version string = "0.1.0"

// ConfigFileName is the name of the configuration file looked up in the
// working directory when none is given.
const ConfigFileName string = "cirlower.toml"

// ModuleFileExt is the file extension of YAML source modules.
const ModuleFileExt string = ".yaml"

// OutputFileExt is the file extension of the LLVM assembly produced.
const OutputFileExt string = ".ll"
