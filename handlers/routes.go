package handlers

import "github.com/gin-gonic/gin"

// Handlers groups the API handlers mounted by RegisterRoutes
type Handlers struct {
	Clients    *ClientHandler
	Templates  *TemplateHandler
	Petitions  *PetitionHandler
	Chat       *ChatHandler
	References *ReferenceHandler
	Files      *FileHandler
}

// RegisterRoutes mounts every API route on api
func RegisterRoutes(api *gin.RouterGroup, h Handlers) {
	clients := api.Group("/clients")
	{
		clients.POST("", h.Clients.CreateClient)
		clients.GET("", h.Clients.ListClients)
		clients.GET("/:id", h.Clients.GetClient)
	}

	templates := api.Group("/templates")
	{
		templates.POST("", h.Templates.CreateTemplate)
		templates.GET("", h.Templates.ListTemplates)
	}

	petitions := api.Group("/petitions")
	{
		petitions.POST("/generate", h.Petitions.GeneratePetition)
		petitions.GET("/:client_id", h.Petitions.ListPetitions)
	}

	chat := api.Group("/chat")
	{
		chat.POST("/message", h.Chat.SendMessage)
		chat.GET("/history/:client_id", h.Chat.GetHistory)
	}

	references := api.Group("/references")
	{
		references.POST("/upload", h.References.UploadReference)
		references.POST("/reindex", h.References.StartReindex)
		references.GET("", h.References.ListReferences)
		references.GET("/:id", h.References.GetReference)
		references.DELETE("/:id", h.References.DeleteReference)
	}

	documents := api.Group("/documents")
	{
		documents.POST("/upload", h.Files.UploadDocument)
		documents.GET("/:client_id", h.Files.ListDocuments)
	}
	api.GET("/files/:id", h.Files.DownloadFile)

	api.GET("/jobs/:id", h.References.GetJob)
	api.POST("/retrieval/context", h.References.RetrieveContext)
}
