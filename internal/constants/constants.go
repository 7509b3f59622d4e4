package constants

// DummyAPIKey is sent to OpenAI-compatible endpoints that expect a token
// header but don't validate it, such as local inference servers.
const DummyAPIKey = "not-needed"
