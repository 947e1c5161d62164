// Package jobboard は求人掲示板サービスのHTTPサーバーと永続化層を提供する。
//
// 求人の投稿・取得・更新・削除、求人への応募、およびCookieベースの
// セッショントークンによる認証を単一のサービスとして実装する。
package jobboard
