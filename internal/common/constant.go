package common

// AuthorizationHeaderName carries "Bearer <access token>" on inbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// DefaultRecipeTitle is used when a favorite is saved without a title.
const DefaultRecipeTitle = "Untitled Recipe"
