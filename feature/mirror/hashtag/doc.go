// Package hashtag derives hashtags from task titles.
package hashtag
