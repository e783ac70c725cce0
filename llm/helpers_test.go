package llm

import "catalystcore/types"

func testNewsItem(title string) types.NewsItem {
	return types.NewsItem{ID: "item-1", Title: title}
}
