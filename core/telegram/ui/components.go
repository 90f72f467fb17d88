package ui

import (
	"github.com/m3rciful/gobot-ui/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// NewSimpleArticleResult creates an ArticleResult with given ID, title and content.
func NewSimpleArticleResult(id, title, text string) *tele.ArticleResult {
	result := &tele.ArticleResult{
		Title: title,
		Text:  text,
	}
	result.SetResultID(id)
	return result
}

// NewShareArticle builds an inline-query article whose message carries a single
// button opening link, typically a deep link back into the bot.
func NewShareArticle(id, title, text, label, link string) (*tele.ArticleResult, error) {
	open, err := keyboard.OpenURL(link)
	if err != nil {
		return nil, err
	}
	result := NewSimpleArticleResult(id, title, text)
	result.Description = link
	result.SetReplyMarkup(keyboard.Build(keyboard.B(label, open)).Markup())
	return result, nil
}
