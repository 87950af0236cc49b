package types

// Version is the canonical project version.
// All components (CLI, checkpoint schema, integration events) share this
// version per the lockstep versioning policy.
//
// This version is authoritative. Docs must reference this constant.
const Version = "0.2.0"
