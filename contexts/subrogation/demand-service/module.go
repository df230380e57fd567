package demandservice

import (
	"log/slog"

	httpadapter "subroflow/contexts/subrogation/demand-service/adapters/http"
	"subroflow/contexts/subrogation/demand-service/adapters/memory"
	"subroflow/contexts/subrogation/demand-service/application/commands"
	"subroflow/contexts/subrogation/demand-service/application/queries"
	"subroflow/contexts/subrogation/demand-service/application/workers"
	"subroflow/contexts/subrogation/demand-service/domain/entities"
	"subroflow/contexts/subrogation/demand-service/ports"
)

type Module struct {
	Handler       httpadapter.Handler
	PDFConsumer   workers.PDFGenerationConsumer
	EmailConsumer workers.EmailDeliveryConsumer
	Store         *memory.Store
}

type Dependencies struct {
	Cases          ports.CaseRepository
	Packages       ports.PackageRepository
	Communications ports.CommunicationRepository
	Objects        ports.ObjectStore
	Queue          ports.QueuePublisher
	Email          ports.EmailSender
	Renderer       ports.CoverRenderer
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	FromAddress    string
	FromName       string
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	commandUseCase := commands.UseCase{
		Cases:          deps.Cases,
		Packages:       deps.Packages,
		Communications: deps.Communications,
		Objects:        deps.Objects,
		Queue:          deps.Queue,
		Clock:          deps.Clock,
		IDGen:          deps.IDGenerator,
		FromAddress:    deps.FromAddress,
		Logger:         deps.Logger,
	}
	queryUseCase := queries.UseCase{
		Cases:          deps.Cases,
		Packages:       deps.Packages,
		Communications: deps.Communications,
		Logger:         deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			Commands: commandUseCase,
			Queries:  queryUseCase,
			Logger:   deps.Logger,
		},
		PDFConsumer: workers.PDFGenerationConsumer{
			Cases:    deps.Cases,
			Packages: deps.Packages,
			Objects:  deps.Objects,
			Renderer: deps.Renderer,
			Clock:    deps.Clock,
			Logger:   deps.Logger,
		},
		EmailConsumer: workers.EmailDeliveryConsumer{
			Cases:          deps.Cases,
			Packages:       deps.Packages,
			Communications: deps.Communications,
			Objects:        deps.Objects,
			Sender:         deps.Email,
			Clock:          deps.Clock,
			FromName:       deps.FromName,
			Logger:         deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module against in-process doubles. Queue and
// Renderer still come from the caller so tests can observe or stub them.
func NewInMemoryModule(seed []entities.Case, queue ports.QueuePublisher, renderer ports.CoverRenderer, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Cases:          store,
		Packages:       store,
		Communications: store,
		Objects:        memory.NewBlobStore(),
		Queue:          queue,
		Email:          memory.NewEmailSender(),
		Renderer:       renderer,
		Clock:          store,
		IDGenerator:    store,
		Logger:         logger,
	})
	module.Store = store
	return module
}
