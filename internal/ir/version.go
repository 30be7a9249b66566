package ir

// SchemaVersion is the version of the compiled schema format written by
// compile. Bump it when CompiledSchema changes incompatibly.
const SchemaVersion = "1"
