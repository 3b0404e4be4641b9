package repository

import "access_service/internal/database/mongo"

type Repositories struct {
	AccessRepository      *AccessRepository
	AssociationRepository *AssociationRepository
	AuditRepository       *AuditRepository
	LevelRepository       *LevelRepository
	OverrideRepository    *OverrideRepository
	RedisRepository       *RedisRepo
	UserRepository        *UserRepository
}

var Repositories_instance = &Repositories{
	AccessRepository:      NewAccessRepository(mongo.Mongo_Database),
	AssociationRepository: NewAssociationRepository(mongo.Mongo_Database),
	AuditRepository:       NewAuditRepository(mongo.Mongo_Database),
	LevelRepository:       NewLevelRepository(mongo.Mongo_Database),
	OverrideRepository:    NewOverrideRepository(mongo.Mongo_Database),
	RedisRepository:       NewRedisRepo(),
	UserRepository:        NewUserRepository(mongo.Mongo_Database),
}
