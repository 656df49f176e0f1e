package common

// Version is the engine version reported in the status endpoint and in
// outbound provider requests.
const Version = "0.3.1"
