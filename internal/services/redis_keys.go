package services

const (
	KeyTray        = "table:%s:tray"
	KeyCombatField = "table:%s:%s"
	KeyCacheNames  = "offline:caches"
	KeyCacheStore  = "offline:cache:%s"
)
