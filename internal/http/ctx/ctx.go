package ctx

import (
	"github.com/valyala/fasthttp"
)

const UsernameKey = "username"

func SetUsername(ctx *fasthttp.RequestCtx, username string) {
	ctx.SetUserValue(UsernameKey, username)
}

func UsernameFromCtx(ctx *fasthttp.RequestCtx) (string, bool) {
	v := ctx.UserValue(UsernameKey)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
