// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// Cookieに格納されたJWTトークンの発行・検証、パニックリカバリ、
// Cookie送信を伴うクロスオリジンリクエストのCORS設定を含む。
package middleware
