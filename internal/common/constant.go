package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the access
// token on inbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultKeyPath is the secret-store path of the temporary ID key.
const DefaultKeyPath = "contacts/temp_id_key"
