package api

import (
	"net/http"
	"strconv"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// mustParseInt парсит строку в int с дефолтным значением.
func mustParseInt(s string, defaultVal int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return defaultVal
	}
	return n
}

// pagination читает limit/offset из query.
func pagination(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit = int(mustParseInt(q.Get("limit"), defaultLimit))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset = int(mustParseInt(q.Get("offset"), 0))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// studentIDParam парсит {id} как идентификатор студента.
func studentIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
