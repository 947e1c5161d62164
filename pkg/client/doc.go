// Package client は求人掲示板APIの型付きHTTPクライアントを提供する。
//
// セッショントークンはHTTP-only Cookieで往復するため、
// クライアントは内部にCookieジャーを保持する。IssueTokenで取得した
// トークンは以降のリクエストに自動的に付与される。
package client
