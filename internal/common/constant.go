package common

// AuthorizationHeaderName carries the bearer token on /sync requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token in the Authorization header.
const BearerPrefix = "Bearer "

// LastSyncTimeKey is the metadata slot holding the sync watermark.
const LastSyncTimeKey = "lastSyncTime"
