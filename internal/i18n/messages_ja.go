package i18n

// japaneseMessages contains all Japanese translations.
var japaneseMessages = map[string]string{
	// Error messages
	"error.generic":              "エラーが発生しました。もう一度お試しください。",
	"error.device.none":          "再生デバイスが見つかりません。Spotifyアプリを開いてください。",
	"error.playback.failed":      "再生に失敗しました: %s",
	"error.request.empty":        "聴きたい音楽を教えてください。",
	"error.request.rate_limited": "リクエストが多すぎます。少し待ってからもう一度お試しください。",
	"error.compiler.none":        "スケジュール生成が設定されていません。",
	"error.schedule.empty":       "スケジュールを作成できませんでした。言い方を変えてもう一度お試しください。",
	"error.schedule.index":       "%d 番目のスケジュールはありません。",
	"error.schedule.invalid":     "有効なスケジュール項目がありません。",
	"error.player.action":        "不明な操作です: %s",

	// Success messages
	"success.schedule.created": "%d 件のブロックでスケジュールを作成しました。",
	"success.schedule.updated": "%d 件のブロックでスケジュールを更新しました。",
	"success.schedule.removed": "%d 番目のスケジュールを削除しました。",
	"success.device.selected":  "デバイス %s で再生します。",
	"success.player.action":    "完了: %s",

	// Format helpers
	"format.block": "%s-%s %s",
}
