package moderation

import "fmt"

// User-visible system messages, in the room's Thai locale. Failures are
// always surfaced as plain-language chat messages, never raw error codes.

// MsgWelcome greets a participant entering the room.
const MsgWelcome = "เข้าสู่ห้องแชทสำเร็จ! พิมพ์ /help เพื่อดูคำสั่งทั้งหมด"

// MsgYouAreMuted tells a muted sender why their message was dropped.
const MsgYouAreMuted = "คุณถูกระงับการส่งข้อความ"

// MsgNoRankPermission rejects an unauthorized rank assignment.
const MsgNoRankPermission = "คุณไม่มีสิทธิ์ในการกำหนดสีนี้"

// MsgNoModerationPermission rejects an unauthorized moderation action.
const MsgNoModerationPermission = "คุณไม่มีสิทธิ์ดำเนินการกับผู้ใช้นี้"

// MsgCannotChangeOwner rejects any attempt to re-rank the Owner.
const MsgCannotChangeOwner = "ไม่สามารถเปลี่ยน Rank ของ Owner ได้"

// MsgBotConfirmFailed reports a failed best-effort bot confirmation.
const MsgBotConfirmFailed = "ขออภัย, บอทไม่สามารถยืนยันคำสั่งได้ในขณะนี้"

// MsgBotFailed reports a failed slash-command round trip.
const MsgBotFailed = "ขออภัย, ไม่สามารถดำเนินการตามคำสั่งได้ในขณะนี้ กรุณาลองใหม่อีกครั้ง"

// MsgStoreFailed reports a failed persistence write; the action may be retried.
const MsgStoreFailed = "ไม่สามารถบันทึกการเปลี่ยนแปลงได้ กรุณาลองใหม่อีกครั้ง"

func msgUnknownRank(label string) string {
	return fmt.Sprintf("ไม่รู้จักสี: %s", label)
}

func msgUserNotFound(uid string) string {
	return fmt.Sprintf("ไม่พบผู้ใช้ที่มี UID: %s", uid)
}

func msgRankChanged(actor, target, label string) string {
	return fmt.Sprintf("%s ได้เปลี่ยน Rank ของ %s เป็น %s", actor, target, label)
}

func msgMuted(actor, target string) string {
	return fmt.Sprintf("%s ได้ระงับการส่งข้อความของ %s", actor, target)
}

func msgUnmuted(actor, target string) string {
	return fmt.Sprintf("%s ได้ยกเลิกการระงับการส่งข้อความของ %s", actor, target)
}

func msgBanned(actor, target string) string {
	return fmt.Sprintf("%s ได้แบน %s ออกจากห้องถาวร", actor, target)
}

func msgKicked(actor, target string) string {
	return fmt.Sprintf("%s ได้เตะ %s ออกจากห้อง", actor, target)
}

func msgUnranked(actor, target string) string {
	return fmt.Sprintf("%s ได้ถอด Rank ของ %s", actor, target)
}
