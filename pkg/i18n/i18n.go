// Package i18n holds the fallback messages shown when the backend does not
// supply one.
package i18n

import (
	"fmt"
	"os"
	"strings"
)

// Language represents a supported language
type Language string

const (
	// English is the English language
	English Language = "en"
	// Japanese is the Japanese language
	Japanese Language = "ja"
	// Chinese is the Simplified Chinese language
	Chinese Language = "zh"
)

// DefaultLanguage is the fallback language
const DefaultLanguage = English

// Message keys.
const (
	LoginFailed          = "error.login"
	SignupFailed         = "error.signup"
	UpdateFailed         = "error.update"
	PasswordUpdateFailed = "error.password.update"
	DeleteFailed         = "error.delete"
	ForgotPasswordFailed = "error.password.forgot"
	ResetPasswordFailed  = "error.password.reset"
	LoadFailed           = "error.load"
	ReviewFailed         = "error.review"
	CredentialsRequired  = "error.credentials.required"
	FieldsRequired       = "error.fields.required"
	NotAuthenticated     = "error.not_authenticated"
	SessionExpired       = "error.session_expired"
)

// Translation maps message keys to text.
type Translation map[string]string

// Translations holds all language translations
type Translations map[Language]Translation

// Translator resolves message keys for a language.
type Translator struct {
	translations Translations
}

// NewTranslator creates a translator with the built-in messages.
func NewTranslator() *Translator {
	return &Translator{translations: defaultTranslations}
}

// T translates key for lang, falling back to DefaultLanguage and then to
// the key itself. Extra args are applied with fmt.Sprintf.
func (t *Translator) T(lang Language, key string, args ...interface{}) string {
	text, ok := t.lookup(lang, key)
	if !ok {
		text, ok = t.lookup(DefaultLanguage, key)
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

func (t *Translator) lookup(lang Language, key string) (string, bool) {
	trans, ok := t.translations[lang]
	if !ok {
		return "", false
	}
	text, ok := trans[key]
	return text, ok
}

// ParseLanguage normalizes a language tag such as "ja_JP.UTF-8" or "zh-CN".
// Unknown tags map to DefaultLanguage.
func ParseLanguage(tag string) Language {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if len(tag) > 2 {
		tag = tag[:2]
	}

	switch tag {
	case "ja":
		return Japanese
	case "zh":
		return Chinese
	case "en":
		return English
	default:
		return DefaultLanguage
	}
}

// DetectLanguage picks the language from an explicit setting, then from the
// NATOURS_LANG, LC_ALL and LANG environment variables.
func DetectLanguage(explicit string) Language {
	if explicit != "" {
		return ParseLanguage(explicit)
	}
	for _, name := range []string{"NATOURS_LANG", "LC_ALL", "LANG"} {
		if v := os.Getenv(name); v != "" && v != "C" && v != "POSIX" {
			return ParseLanguage(v)
		}
	}
	return DefaultLanguage
}

var defaultTranslations = Translations{
	English: Translation{
		LoginFailed:          "Login failed, please check your email and password",
		SignupFailed:         "Sign up failed, please try again",
		UpdateFailed:         "Update failed",
		PasswordUpdateFailed: "Password change failed",
		DeleteFailed:         "Failed to delete account",
		ForgotPasswordFailed: "Could not send the password reset email",
		ResetPasswordFailed:  "Password reset failed",
		LoadFailed:           "Failed to load",
		ReviewFailed:         "Failed to post review",
		CredentialsRequired:  "Please provide email and password",
		FieldsRequired:       "Please fill in: %s",
		NotAuthenticated:     "You are not logged in",
		SessionExpired:       "Your session has expired, please log in again",
	},
	Japanese: Translation{
		LoginFailed:          "ログインに失敗しました。メールアドレスとパスワードを確認してください",
		SignupFailed:         "登録に失敗しました。もう一度お試しください",
		UpdateFailed:         "更新に失敗しました",
		PasswordUpdateFailed: "パスワードの変更に失敗しました",
		DeleteFailed:         "アカウントの削除に失敗しました",
		ForgotPasswordFailed: "パスワード再設定メールを送信できませんでした",
		ResetPasswordFailed:  "パスワードの再設定に失敗しました",
		LoadFailed:           "読み込みに失敗しました",
		ReviewFailed:         "レビューの投稿に失敗しました",
		CredentialsRequired:  "メールアドレスとパスワードを入力してください",
		FieldsRequired:       "次の項目を入力してください: %s",
		NotAuthenticated:     "ログインしていません",
		SessionExpired:       "セッションの有効期限が切れました。再度ログインしてください",
	},
	Chinese: Translation{
		LoginFailed:          "登录失败，请检查邮箱和密码",
		SignupFailed:         "注册失败，请稍后重试",
		UpdateFailed:         "更新失败",
		PasswordUpdateFailed: "密码修改失败",
		DeleteFailed:         "删除账户失败",
		ForgotPasswordFailed: "重置密码邮件发送失败",
		ResetPasswordFailed:  "重置密码失败",
		LoadFailed:           "加载失败",
		ReviewFailed:         "发表评论失败",
		CredentialsRequired:  "请输入邮箱和密码",
		FieldsRequired:       "请填写：%s",
		NotAuthenticated:     "您尚未登录",
		SessionExpired:       "登录已过期，请重新登录",
	},
}
