package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	federation "github.com/federatedsec/federation"
)

// ok writes the success envelope with a payload.
func ok(c *gin.Context, status int, result any) {
	c.JSON(status, gin.H{"success": true, "result": result})
}

// okVoid writes the bare success envelope.
func okVoid(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// fail writes the error envelope. The wire code equals the HTTP status;
// non-coded errors collapse to 500 with a generic message.
func fail(c *gin.Context, err error) {
	status := federation.CodeOf(err).HTTPStatus()
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"code":    status,
		"message": federation.Message(err),
	})
}
