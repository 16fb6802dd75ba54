package audit

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veritrail/pkg/domerrors"
	"veritrail/pkg/requestcontext"
)

type ExportSuite struct {
	suite.Suite
	ctx  context.Context
	sink *fakeSink
	svc  *Service
}

func TestExportSuite(t *testing.T) {
	suite.Run(t, new(ExportSuite))
}

func (s *ExportSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(),
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s.sink = &fakeSink{}

	svc, err := NewService([]Sink{s.sink})
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ExportSuite) seed(entries ...Entry) {
	s.Require().NoError(s.sink.Insert(s.ctx, entries))
}

func (s *ExportSuite) TestExportJSON() {
	s.seed(Entry{
		ID:          "e1",
		Timestamp:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Action:      ActionAuthLogin,
		Category:    CategoryAuthentication,
		Severity:    SeverityInfo,
		ActorID:     "user-1",
		Description: "User signed in",
		Success:     true,
	})

	payload, err := s.svc.Export(s.ctx, Filter{}, FormatJSON)
	s.Require().NoError(err)

	var decoded []Entry
	s.Require().NoError(json.Unmarshal([]byte(payload), &decoded))
	s.Require().Len(decoded, 1)
	s.Equal("e1", decoded[0].ID)
	s.Equal(ActionAuthLogin, decoded[0].Action)
}

func (s *ExportSuite) TestExportCSV() {
	s.seed(Entry{
		ID:          "e1",
		Timestamp:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Action:      ActionEvidenceDeleted,
		Category:    CategoryCompliance,
		Severity:    SeverityWarning,
		ActorID:     "user-1",
		ActorLabel:  "Dana",
		Description: `Said "hello" and left`,
		Success:     true,
	})

	payload, err := s.svc.Export(s.ctx, Filter{}, FormatCSV)
	s.Require().NoError(err)

	lines := strings.Split(strings.TrimRight(payload, "\n"), "\n")
	s.Require().Len(lines, 2)

	s.Equal("ID,Timestamp,Action,Category,Severity,Actor ID,Actor Label,Organization ID,Resource Type,Resource ID,Description,Success", lines[0])

	// Every field is quoted; embedded quotes double.
	s.Equal(`"e1","2026-03-01T10:00:00Z","evidence.deleted","compliance","warning","user-1","Dana","","","","Said ""hello"" and left","true"`, lines[1])
}

func (s *ExportSuite) TestExportCSVEmpty() {
	payload, err := s.svc.Export(s.ctx, Filter{}, FormatCSV)
	s.Require().NoError(err)
	s.Equal("ID,Timestamp,Action,Category,Severity,Actor ID,Actor Label,Organization ID,Resource Type,Resource ID,Description,Success\n", payload)
}

func (s *ExportSuite) TestExportUnknownFormat() {
	_, err := s.svc.Export(s.ctx, Filter{}, Format("xml"))
	s.Require().Error(err)
	s.Equal(domerrors.CodeInvalidInput, domerrors.CodeOf(err))
	s.Equal(0, s.svc.BufferLen(), "a rejected export must not log anything")
}

func (s *ExportSuite) TestExportLogsItself() {
	s.seed(
		Entry{ID: "e1", Action: ActionAuthLogin, Success: true},
		Entry{ID: "e2", Action: ActionAuthLogout, Success: true},
	)

	filter := Filter{Actions: []Action{ActionAuthLogin, ActionAuthLogout}}
	_, err := s.svc.Export(s.ctx, filter, FormatJSON)
	s.Require().NoError(err)

	// The self-log is buffered, not part of the payload just returned.
	s.Require().Equal(1, s.svc.BufferLen())
	s.Require().NoError(s.svc.Flush(s.ctx))

	entries, err := s.svc.Query(s.ctx, Filter{Actions: []Action{ActionDataExported}}, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)

	logged := entries[0]
	s.Equal(CategorySecurity, logged.Category)
	s.Equal(SeverityWarning, logged.Severity)
	s.Equal(2, logged.Metadata["count"])
	s.Equal("json", logged.Metadata["format"])
	s.NotNil(logged.Metadata["filter"])
}

func (s *ExportSuite) TestExportHonorsFilter() {
	s.seed(
		Entry{ID: "e1", Action: ActionAuthLogin, ActorID: "user-1", Success: true},
		Entry{ID: "e2", Action: ActionAuthLogin, ActorID: "user-2", Success: true},
	)

	payload, err := s.svc.Export(s.ctx, Filter{ActorID: "user-2"}, FormatJSON)
	s.Require().NoError(err)

	var decoded []Entry
	s.Require().NoError(json.Unmarshal([]byte(payload), &decoded))
	s.Require().Len(decoded, 1)
	s.Equal("e2", decoded[0].ID)
}
