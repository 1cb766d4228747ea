package middlewarectx

import "github.com/magabrotheeeer/hobbyfinder/internal/apperr"

var errInvalidHeader = apperr.New(apperr.Unauthorized, "middlewarectx.IdentityMiddleware", "Некорректный заголовок Authorization")
