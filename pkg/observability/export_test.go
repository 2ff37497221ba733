package observability

// CallSampler exposes callSampler to the external test package.
var CallSampler = callSampler
