// Package user holds the read-side user use cases.
package user

import (
	"github.com/sirupsen/logrus"

	"github.com/rhythmia/forum-server/server/internal/transport"
	"github.com/rhythmia/forum-server/server/projection"
	"github.com/rhythmia/forum-server/server/store"
)

const listLimit = 50

type Service struct {
	Store store.API
}

type usersResponse struct {
	Users []projection.UserInfo `json:"users"`
}

type userResponse struct {
	User projection.UserInfo `json:"user"`
}

func (s *Service) GetMany(skip int) transport.Result {
	users, err := s.Store.Users(skip, listLimit)
	if err != nil {
		logrus.WithError(err).Error("get users: list failed")
		return transport.Internal()
	}

	p := &projection.Projector{Store: s.Store}
	infos := make([]projection.UserInfo, 0, len(users))
	for _, u := range users {
		info, err := p.UserInfo(u, projection.UserOptions{PopulateRoles: true})
		if err != nil {
			logrus.WithError(err).Error("get users: projection failed")
			return transport.Internal()
		}
		infos = append(infos, info)
	}

	return transport.OK(usersResponse{Users: infos})
}

func (s *Service) GetOne(id store.Lookup) transport.Result {
	user, err := s.Store.FindUser(id)
	if err != nil {
		logrus.WithError(err).Error("get user: lookup failed")
		return transport.Internal()
	}
	if user == nil {
		return transport.NotFound("No user found")
	}

	p := &projection.Projector{Store: s.Store}
	info, err := p.UserInfo(user, projection.UserOptions{PopulateRoles: true})
	if err != nil {
		logrus.WithError(err).Error("get user: projection failed")
		return transport.Internal()
	}

	return transport.OK(userResponse{User: info})
}
