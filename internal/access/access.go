// Package access はユーザー記録へのアクセス可否を判定する。
//
// 判定は役割と所有関係のみに基づく:
//   - 参照: 本人、または医師・介護者
//   - 書き込み: 本人、または医師
//   - ユーザー一覧・作成: 医師・介護者
//   - 他ユーザーの削除: 医師のみ
package access

import "github.com/healthpass/healthpass/internal/model"

// CanRead はactorがownerIDの記録を参照できるかを返す。
func CanRead(actor *model.User, ownerID string) bool {
	if actor == nil {
		return false
	}
	return actor.ID == ownerID || actor.Role.IsStaff()
}

// CanWrite はactorがownerIDの記録を作成・変更できるかを返す。
func CanWrite(actor *model.User, ownerID string) bool {
	if actor == nil {
		return false
	}
	return actor.ID == ownerID || actor.Role == model.RoleDoctor
}

// CanManageUsers はactorがユーザー一覧の取得と新規作成を行えるかを返す。
func CanManageUsers(actor *model.User) bool {
	return actor != nil && actor.Role.IsStaff()
}

// CanDeleteUser はactorがtargetIDのユーザーを削除できるかを返す。
func CanDeleteUser(actor *model.User, targetID string) bool {
	if actor == nil {
		return false
	}
	return actor.ID == targetID || actor.Role == model.RoleDoctor
}
