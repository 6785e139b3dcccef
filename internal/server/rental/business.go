package rental

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophlink/internal/common"
	"github.com/dmitrijs2005/gophlink/internal/protocol"
	"github.com/dmitrijs2005/gophlink/internal/server/models"
)

// Rental action names.
const (
	ActionListMovies   = "ListMovies"
	ActionSearchMovies = "SearchMovies"
	ActionRentMovie    = "RentMovie"
	ActionReturnMovie  = "ReturnMovie"
	ActionTopUpBalance = "TopUpBalance"
	ActionGetBalance   = "GetBalance"
)

// Argument keys.
const (
	MovieIDKey = "MovieId"
	TitleKey   = "Title"
	GenreKey   = "Genre"
	AmountKey  = "Amount"
)

// Business adapts Service to the dispatcher's business layer contract.
type Business struct {
	svc *Service
}

func NewBusiness(svc *Service) *Business {
	return &Business{svc: svc}
}

// RequiresSession is true for every action, known or not.
func (b *Business) RequiresSession(string) bool { return true }

func (b *Business) Execute(_ context.Context, action string, args protocol.Args, userID *int64) (protocol.Response, error) {
	if userID == nil {
		return protocol.Response{}, common.ErrInvalidOrMissingSession
	}
	uid := *userID

	switch action {
	case ActionListMovies:
		movies := b.svc.List()
		return protocol.OK(fmt.Sprintf("%d movies", len(movies)), moviesValue(movies)), nil

	case ActionSearchMovies:
		var movies []models.Movie
		if title, ok := args.String(TitleKey); ok && title != "" {
			movies = b.svc.SearchByTitle(title)
		} else if genre, ok := args.String(GenreKey); ok && genre != "" {
			movies = b.svc.SearchByGenre(genre)
		} else {
			return protocol.Response{}, fmt.Errorf("%w: %s or %s is required", common.ErrValidation, TitleKey, GenreKey)
		}
		return protocol.OK(fmt.Sprintf("%d movies", len(movies)), moviesValue(movies)), nil

	case ActionRentMovie:
		id, err := movieID(args)
		if err != nil {
			return protocol.Response{}, err
		}
		balance, err := b.svc.Rent(uid, id)
		if err != nil {
			return protocol.Response{}, err
		}
		return protocol.OK("Movie rented", balanceValue(balance)), nil

	case ActionReturnMovie:
		id, err := movieID(args)
		if err != nil {
			return protocol.Response{}, err
		}
		if err := b.svc.Return(uid, id); err != nil {
			return protocol.Response{}, err
		}
		return protocol.OK("Movie returned", nil), nil

	case ActionTopUpBalance:
		amount, ok := args.Int(AmountKey)
		if !ok {
			return protocol.Response{}, fmt.Errorf("%w: %s (integer cents) is required", common.ErrValidation, AmountKey)
		}
		balance, err := b.svc.TopUp(uid, amount)
		if err != nil {
			return protocol.Response{}, err
		}
		return protocol.OK("Balance topped up", balanceValue(balance)), nil

	case ActionGetBalance:
		balance, rented := b.svc.Balance(uid)
		ids := make([]protocol.Value, len(rented))
		for i, id := range rented {
			ids[i] = protocol.IntValue(id)
		}
		v := protocol.MapValue(map[string]protocol.Value{
			"Balance": protocol.IntValue(balance),
			"Rented":  protocol.ArrayValue(ids...),
		})
		return protocol.OK("Balance", &v), nil
	}

	return protocol.Response{}, common.ErrUnknownAction
}

func movieID(args protocol.Args) (int64, error) {
	id, ok := args.Int(MovieIDKey)
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", common.ErrValidation, MovieIDKey)
	}
	return id, nil
}

func balanceValue(cents int64) *protocol.Value {
	v := protocol.MapValue(map[string]protocol.Value{"Balance": protocol.IntValue(cents)})
	return &v
}

func moviesValue(movies []models.Movie) *protocol.Value {
	items := make([]protocol.Value, len(movies))
	for i, m := range movies {
		items[i] = protocol.MapValue(map[string]protocol.Value{
			"Id":        protocol.IntValue(m.ID),
			"Title":     protocol.StringValue(m.Title),
			"Genre":     protocol.StringValue(m.Genre),
			"Year":      protocol.IntValue(int64(m.Year)),
			"Cost":      protocol.IntValue(m.CostCents),
			"Available": protocol.BoolValue(m.Available),
		})
	}
	v := protocol.ArrayValue(items...)
	return &v
}
