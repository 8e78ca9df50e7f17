package handler

import (
	"embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed mockdata/*.json
var mockFS embed.FS

// mockJSON trả nguyên văn một file JSON nhúng sẵn, giống cách bản gốc
// re-export các file mock của catalog.
func mockJSON(name string) gin.HandlerFunc {
	data, err := mockFS.ReadFile("mockdata/" + name)
	if err != nil {
		panic(err) // thiếu file nhúng là lỗi build, không phải lỗi runtime
	}
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	}
}
