package handlers

import (
	"net/http"
	"strconv"

	"github.com/akinalp/storefront/models"
	"github.com/akinalp/storefront/pkg"
)

// currentUser, context'teki kullanıcıyı döner. Yoksa 401 yazar ve false döner.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return nil, false
	}
	return user, true
}

// optionalUser, Optional auth'lu endpoint'lerde kullanıcıyı (varsa) döner.
func optionalUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(UserContextKey).(*models.User)
	return user
}

// parsePage: ?page=&per_page= okunur, normalize service'te yapılır.
func parsePage(r *http.Request) models.Page {
	q := r.URL.Query()
	return models.Page{
		Page:    queryInt(q.Get("page")),
		PerPage: queryInt(q.Get("per_page")),
	}
}

// queryInt, sayı olmayan değeri 0 sayar.
func queryInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func queryInt64(raw string) int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
