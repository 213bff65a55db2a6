package service

import (
	"context"

	"ai-networking-be/internal/dto"
	"ai-networking-be/internal/entity"
	"ai-networking-be/internal/repository/specification"
	"ai-networking-be/internal/repository/unitofwork"
	"ai-networking-be/pkg/store"

	"github.com/google/uuid"
)

const defaultContactPageSize = 20

type IContactService interface {
	Show(ctx context.Context, userId string, id uuid.UUID) (*dto.ContactResponse, error)
	List(ctx context.Context, userId string, req *dto.ListContactsRequest) (*dto.ListContactsResponse, error)
}

type contactService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewContactService(uowFactory unitofwork.RepositoryFactory) IContactService {
	return &contactService{
		uowFactory: uowFactory,
	}
}

func (c *contactService) Show(ctx context.Context, userId string, id uuid.UUID) (*dto.ContactResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	contact, err := uow.ContactRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, store.ErrContactNotFound
	}
	return toContactResponse(contact), nil
}

func (c *contactService) List(ctx context.Context, userId string, req *dto.ListContactsRequest) (*dto.ListContactsResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = defaultContactPageSize
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	owner := specification.ByUserID{UserID: userId}

	total, err := uow.ContactRepository().Count(ctx, owner)
	if err != nil {
		return nil, err
	}
	contacts, err := uow.ContactRepository().FindAll(ctx, owner, specification.Pagination{Limit: limit, Offset: req.Offset})
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ContactResponse, 0, len(contacts))
	for _, contact := range contacts {
		items = append(items, toContactResponse(contact))
	}
	return &dto.ListContactsResponse{Items: items, Total: total}, nil
}

func toContactResponse(c *entity.Contact) *dto.ContactResponse {
	return &dto.ContactResponse{
		Id:                 c.Id,
		Name:               c.Name,
		FirstName:          c.FirstName,
		LastName:           c.LastName,
		Title:              c.Title,
		Company:            c.Company,
		Industry:           c.Industry,
		CompanyDescription: c.CompanyDescription,
		ContactType:        c.ContactType,
		Email:              c.Email,
		Phone:              c.Phone,
		LinkedInURL:        c.LinkedInURL,
		CompanyLinkedIn:    c.CompanyLinkedIn,
		Website:            c.Website,
		Location:           c.Location,
		Notes:              c.Notes,
		ResearchSummary:    c.ResearchSummary,
		Source:             c.Source,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}
