package http

import (
	"net/http"

	"ridesight/db"
	"ridesight/queries"
)

func RegisterQueryRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/queries", handleQueryList)
	mux.HandleFunc("GET /api/queries/{file}", handleQueryRun)
}

func handleQueryList(w http.ResponseWriter, r *http.Request) {
	c, err := currentCatalog()
	if err != nil {
		fail(w, r, err)
		return
	}
	list, err := c.List()
	if err != nil {
		fail(w, r, err)
		return
	}
	if list == nil {
		list = []queries.Query{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": list})
}

// handleQueryRun 执行一个预置查询，返回SQL文本与结果
func handleQueryRun(w http.ResponseWriter, r *http.Request) {
	c, err := currentCatalog()
	if err != nil {
		fail(w, r, err)
		return
	}
	q, err := c.Lookup(r.PathValue("file"))
	if err != nil {
		fail(w, r, err)
		return
	}
	text, err := c.Text(q)
	if err != nil {
		fail(w, r, err)
		return
	}

	res, err := db.RunQuery(r.Context(), text)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]any{
			"name":  q.Name,
			"file":  q.File,
			"sql":   text,
			"error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":   q.Name,
		"file":   q.File,
		"sql":    text,
		"result": res,
	})
}
