package models

import "time"

// Comment is a reply to a post. Comments are append-only: the API neither
// updates nor deletes them, they only disappear with their post or author.
type Comment struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	PostID   uint      `gorm:"index;not null" json:"post_id"`
	AuthorID uint      `gorm:"index;not null" json:"author_id"`
	Author   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	Created  time.Time `gorm:"index;autoCreateTime;<-:create" json:"created"`
}
