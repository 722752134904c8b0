package common

// ShareTypeUser is the only supported share type.
const ShareTypeUser = "user"

// UserSearchLimit caps the number of candidate share partners fetched from
// the directory per query.
const UserSearchLimit = 512

// AuthorizationHeaderName carries the bearer access token on HTTP requests.
const AuthorizationHeaderName = "Authorization"
