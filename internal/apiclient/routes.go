package apiclient

import "strconv"

const (
	PathRegister       = "/api/register/"
	PathToken          = "/api/token/"
	PathTokenRefresh   = "/api/token/refresh/"
	PathMe             = "/api/users/me/"
	PathCategories     = "/api/products/categories/"
	PathCategoriesBulk = "/api/products/categories/bulk/"
)

// authEndpoints never carry a bearer token and never trigger a refresh.
var authEndpoints = map[string]struct{}{
	PathRegister:     {},
	PathToken:        {},
	PathTokenRefresh: {},
}

func IsAuthEndpoint(path string) bool {
	_, ok := authEndpoints[path]
	return ok
}

func CategoryPath(id int64) string {
	return PathCategories + strconv.FormatInt(id, 10) + "/"
}
