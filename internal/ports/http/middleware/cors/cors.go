package cors

import (
	"net/http"

	"github.com/rs/cors"
)

// AddCorsPolicy lets browsers on allowedOrigins call the API with a bearer
// token; no origins means any origin
func AddCorsPolicy(handler http.Handler, allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowCredentials: true,
		Debug:            false,
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
	})

	return c.Handler(handler)
}
