// Package services implements the business logic layer of the attendance
// application. It provides a clean separation between HTTP handlers and the
// processing engine, ensuring that business rules are centralized and
// testable.
//
// # Architecture
//
// Services follow these architectural principles:
//
//	1. Interface-driven design for testability
//	2. Context propagation for cancellation and tracing
//	3. Dependency injection for loose coupling
//	4. Domain-focused methods that encapsulate business rules
//
// # Service Layer Responsibilities
//
// The service layer is responsible for:
//
//	- Running the deduction pipeline over uploaded reports
//	- Storing and serving result workbooks
//	- Cross-cutting concerns (logging, metrics, websocket events)
//	- Error handling and transformation
//
// # Common Service Pattern
//
// Services typically follow this structure:
//
//	type ServiceName struct {
//	    paths  *config.Paths
//	    logger *slog.Logger
//	}
//
//	func NewServiceName(cfg *config.Config, logger *slog.Logger) (*ServiceName, error) {
//	    ...
//	}
//
//	func (s *ServiceName) BusinessOperation(ctx context.Context, input Input) (*Output, error) {
//	    // Validate input
//	    if err := input.Validate(); err != nil {
//	        return nil, fmt.Errorf("validation failed: %w", err)
//	    }
//
//	    // Execute business logic
//	    result, err := s.run(ctx, input)
//	    if err != nil {
//	        s.logger.ErrorContext(ctx, "operation failed",
//	            "error", err,
//	        )
//	        return nil, fmt.Errorf("operation failed: %w", err)
//	    }
//
//	    return result, nil
//	}
//
// # Available Services
//
// The package provides these core services:
//
//	- AttendanceService: Runs uploads through the deduction engine and
//	  manages stored result workbooks
//	- HealthService: Provides system health checks
//
// # Error Handling
//
// Services return domain-specific errors that handlers can transform:
//
//	- Validation errors for invalid input
//	- Not found errors for missing results
//	- Report errors (empty, malformed, unsupported format) from the engine
//	- Internal errors for unexpected failures
//
// # Testing
//
// Services are tested against temporary directories and a progress
// recorder standing in for the websocket hub:
//
//	svc, _ := NewAttendanceServiceWithPaths(cfg, paths, recorder, nil, logger)
//	result, err := svc.ProcessUpload(ctx, report, "april.csv", size)
package services
