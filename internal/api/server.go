package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/openloft/pigeonrace/docs"
	v1 "github.com/openloft/pigeonrace/internal/api/handler/v1"
	"github.com/openloft/pigeonrace/internal/api/middleware"
	"github.com/openloft/pigeonrace/internal/config"
	"github.com/openloft/pigeonrace/internal/repository"
	"github.com/openloft/pigeonrace/internal/repository/dao"
	"github.com/openloft/pigeonrace/internal/service"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
}

func NewServer(conf *config.AppConfig, db *gorm.DB) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()

	authHandler := s.initAuthHandler(db)
	userHandler := s.initUserHandler(db)
	eventHandler := s.initEventHandler(db)
	registrationHandler := s.initRegistrationHandler(db)
	raceHandler := s.initRaceHandler(db)
	basketHandler := s.initBasketHandler(db)
	s.MountHandlers(authHandler, userHandler, eventHandler, registrationHandler, raceHandler, basketHandler)

	return s
}

func (s *Server) initAuthHandler(db *gorm.DB) *v1.AuthHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewAuthService(repo)
	handler := v1.NewAuthHandler(s.Config.API, svc)

	return handler
}

func (s *Server) initUserHandler(db *gorm.DB) *v1.UserHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewUserService(repo)
	handler := v1.NewUserHandler(svc)

	return handler
}

func (s *Server) initEventHandler(db *gorm.DB) *v1.EventHandler {
	eventRepo := repository.NewEventRepository(dao.NewEventDAO(db))
	svc := service.NewEventService(eventRepo)
	uSvc := service.NewUserService(repository.NewUserRepository(dao.NewUserDAO(db)))
	handler := v1.NewEventHandler(svc, uSvc)

	return handler
}

func (s *Server) initRegistrationHandler(db *gorm.DB) *v1.RegistrationHandler {
	regRepo := repository.NewRegistrationRepository(dao.NewRegistrationDAO(db), dao.NewBirdDAO(db))
	eventRepo := repository.NewEventRepository(dao.NewEventDAO(db))
	svc := service.NewRegistrationService(regRepo, eventRepo)
	raceRepo := repository.NewRaceRepository(dao.NewRaceDAO(db), dao.NewBasketDAO(db))
	raceSvc := service.NewRaceService(raceRepo, regRepo, eventRepo)
	uSvc := service.NewUserService(repository.NewUserRepository(dao.NewUserDAO(db)))
	handler := v1.NewRegistrationHandler(svc, raceSvc, uSvc)

	return handler
}

func (s *Server) initRaceHandler(db *gorm.DB) *v1.RaceHandler {
	raceRepo := repository.NewRaceRepository(dao.NewRaceDAO(db), dao.NewBasketDAO(db))
	regRepo := repository.NewRegistrationRepository(dao.NewRegistrationDAO(db), dao.NewBirdDAO(db))
	eventRepo := repository.NewEventRepository(dao.NewEventDAO(db))
	svc := service.NewRaceService(raceRepo, regRepo, eventRepo)
	resultSvc := service.NewResultService(raceRepo, eventRepo)
	eventSvc := service.NewEventService(eventRepo)
	uSvc := service.NewUserService(repository.NewUserRepository(dao.NewUserDAO(db)))
	handler := v1.NewRaceHandler(svc, resultSvc, eventSvc, uSvc)

	return handler
}

func (s *Server) initBasketHandler(db *gorm.DB) *v1.BasketHandler {
	raceRepo := repository.NewRaceRepository(dao.NewRaceDAO(db), dao.NewBasketDAO(db))
	svc := service.NewBasketService(raceRepo)
	uSvc := service.NewUserService(repository.NewUserRepository(dao.NewUserDAO(db)))
	handler := v1.NewBasketHandler(svc, uSvc)

	return handler
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(
	authHandler *v1.AuthHandler,
	userHandler *v1.UserHandler,
	eventHandler *v1.EventHandler,
	registrationHandler *v1.RegistrationHandler,
	raceHandler *v1.RaceHandler,
	basketHandler *v1.BasketHandler,
) {
	const basePath = "/api/v1"

	auth := s.Router.Group(basePath)
	{
		auth.POST("/auth/signup", authHandler.HandleSignup)
		auth.POST("/auth/login", authHandler.HandleLogin)
	}

	authed := s.Router.Group(basePath, middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT())
	{
		authed.GET("/users/:userID", userHandler.HandleGetUser)

		authed.GET("/events", eventHandler.HandleGetEvents)
		authed.POST("/events", eventHandler.HandleCreateEvent)
		authed.GET("/events/:eventID", eventHandler.HandleGetEvent)
		authed.GET("/events/:eventID/races", raceHandler.HandleListRacesByEvent)

		authed.POST("/registrations", registrationHandler.HandleCreateRegistration)
		authed.GET("/registrations/:registrationID", registrationHandler.HandleGetRegistration)
		authed.POST("/registrations/:registrationID/birds", registrationHandler.HandleAddBird)
		authed.GET("/registrations/:registrationID/entries", registrationHandler.HandleListRegistrationEntries)
		authed.GET("/registrations/:registrationID/payments", registrationHandler.HandleGetPayments)
		authed.POST("/registrations/:registrationID/payments", registrationHandler.HandleRecordPayment)
		authed.POST("/birds/:birdID/lost", registrationHandler.HandleMarkBirdLost)

		authed.POST("/races", raceHandler.HandleCreateRace)
		authed.GET("/races/:raceID", raceHandler.HandleGetRace)
		authed.GET("/races/:raceID/entries", raceHandler.HandleListEntries)
		authed.POST("/races/:raceID/entries", raceHandler.HandleFanOutEntries)
		authed.POST("/races/:raceID/start", raceHandler.HandleStartRace)
		authed.POST("/races/:raceID/close", raceHandler.HandleCloseRace)
		authed.POST("/races/:raceID/scan", raceHandler.HandleScan)
		authed.POST("/races/:raceID/results", raceHandler.HandleComputeResults)

		authed.GET("/races/:raceID/baskets", basketHandler.HandleGetBaskets)
		authed.POST("/races/:raceID/baskets", basketHandler.HandleCreateBasket)
		authed.DELETE("/baskets/:basketID", basketHandler.HandleDeleteBasket)
		authed.POST("/baskets/:basketID/entries", basketHandler.HandleAssignEntries)

		authed.POST("/entries/unassign", basketHandler.HandleUnassignEntries)
		authed.POST("/entries/:entryID/arrival", raceHandler.HandleRecordArrival)
		authed.POST("/entries/:entryID/foreign", raceHandler.HandleMarkForeign)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Pigeon Race API"
	docs.SwaggerInfo.Description = "One-loft race management: registrations, basketing, arrivals and payouts."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
