package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/byteguard/byteguard-go/internal/store"
)

type createGroupInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type addMemberInput struct {
	ResearcherID string `json:"researcherId" binding:"required"`
	Role         string `json:"role"`
}

type groupShareInput struct {
	FileID         uint              `json:"fileId" binding:"required"`
	KemCiphertexts map[string]string `json:"kemCiphertexts" binding:"required"`
}

func (s *Server) groupDTO(g *store.Group) gin.H {
	var memberCount int64
	s.db.Model(&store.GroupMembership{}).Where("group_id = ?", g.ID).Count(&memberCount)

	var owner store.User
	s.db.First(&owner, g.OwnerID)

	return gin.H{
		"id":          g.ID,
		"name":        g.Name,
		"description": g.Description,
		"ownerId":     g.OwnerID,
		"ownerName":   owner.ResearcherID,
		"memberCount": memberCount,
		"createdAt":   g.CreatedAt,
	}
}

func (s *Server) membershipDTO(m *store.GroupMembership) gin.H {
	var user store.User
	s.db.First(&user, m.UserID)
	return gin.H{
		"userId":       m.UserID,
		"researcherId": user.ResearcherID,
		"hasKyberKey":  user.KyberPublicKey != "",
		"role":         m.Role,
		"joinedAt":     m.JoinedAt,
	}
}

// membership returns the caller's membership row, if any.
func (s *Server) membership(groupID, userID uint) *store.GroupMembership {
	var m store.GroupMembership
	if err := s.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&m).Error; err != nil {
		return nil
	}
	return &m
}

// isGroupAdmin reports whether the user owns the group or holds the admin
// role in it.
func (s *Server) isGroupAdmin(g *store.Group, userID uint) bool {
	if g.OwnerID == userID {
		return true
	}
	m := s.membership(g.ID, userID)
	return m != nil && m.Role == store.RoleAdmin
}

func (s *Server) loadGroup(c *gin.Context) (*store.Group, bool) {
	groupID, err := strconv.ParseUint(c.Param("groupId"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Invalid group id")
		return nil, false
	}
	var g store.Group
	if err := s.db.First(&g, groupID).Error; err != nil {
		fail(c, http.StatusNotFound, CodeNotFound, "Group not found")
		return nil, false
	}
	return &g, true
}

func (s *Server) createGroup(c *gin.Context) {
	user := currentUser(c)

	var input createGroupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Group name is required")
		return
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Group name is required")
		return
	}
	if len(name) > 200 {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Group name too long (max 200 chars)")
		return
	}

	group := store.Group{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		OwnerID:     user.ID,
		CreatedAt:   time.Now(),
	}

	// The creator becomes the owner and an admin member in one step.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return tx.Create(&store.GroupMembership{
			GroupID:  group.ID,
			UserID:   user.ID,
			Role:     store.RoleAdmin,
			JoinedAt: time.Now(),
		}).Error
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to create group")
		return
	}

	dto := s.groupDTO(&group)
	dto["isOwner"] = true
	dto["myRole"] = store.RoleAdmin
	c.JSON(http.StatusCreated, dto)
}

func (s *Server) listGroups(c *gin.Context) {
	user := currentUser(c)

	var memberships []store.GroupMembership
	if err := s.db.Where("user_id = ?", user.ID).Find(&memberships).Error; err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to list groups")
		return
	}

	roleByGroup := make(map[uint]string, len(memberships))
	ids := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		roleByGroup[m.GroupID] = m.Role
		ids = append(ids, m.GroupID)
	}

	var groups []store.Group
	if len(ids) > 0 {
		s.db.Where("id IN ?", ids).Find(&groups)
	}
	// Owned groups always appear, membership row or not.
	var owned []store.Group
	s.db.Where("owner_id = ?", user.ID).Find(&owned)
	for _, g := range owned {
		if _, seen := roleByGroup[g.ID]; !seen {
			groups = append(groups, g)
			roleByGroup[g.ID] = store.RoleAdmin
		}
	}

	result := make([]gin.H, 0, len(groups))
	for i := range groups {
		dto := s.groupDTO(&groups[i])
		dto["isOwner"] = groups[i].OwnerID == user.ID
		dto["myRole"] = roleByGroup[groups[i].ID]
		result = append(result, dto)
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getGroup(c *gin.Context) {
	user := currentUser(c)
	group, ok := s.loadGroup(c)
	if !ok {
		return
	}

	membership := s.membership(group.ID, user.ID)
	if membership == nil && group.OwnerID != user.ID {
		fail(c, http.StatusForbidden, CodeForbidden, "Access denied")
		return
	}

	var members []store.GroupMembership
	s.db.Where("group_id = ?", group.ID).Find(&members)
	memberDTOs := make([]gin.H, 0, len(members))
	for i := range members {
		memberDTOs = append(memberDTOs, s.membershipDTO(&members[i]))
	}

	var accesses []store.GroupFileAccess
	s.db.Where("group_id = ?", group.ID).Find(&accesses)
	sharedFiles := make([]gin.H, 0, len(accesses))
	for i := range accesses {
		sharedFiles = append(sharedFiles, s.groupShareDTO(&accesses[i], user))
	}

	dto := s.groupDTO(group)
	dto["isOwner"] = group.OwnerID == user.ID
	if membership != nil {
		dto["myRole"] = membership.Role
	} else {
		dto["myRole"] = store.RoleAdmin
	}
	dto["members"] = memberDTOs
	dto["sharedFiles"] = sharedFiles
	c.JSON(http.StatusOK, dto)
}

func (s *Server) deleteGroup(c *gin.Context) {
	user := currentUser(c)
	group, ok := s.loadGroup(c)
	if !ok {
		return
	}
	if group.OwnerID != user.ID {
		fail(c, http.StatusForbidden, CodeForbidden, "Only the owner can delete this group")
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", group.ID).Delete(&store.GroupMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", group.ID).Delete(&store.GroupFileAccess{}).Error; err != nil {
			return err
		}
		return tx.Delete(&store.Group{}, group.ID).Error
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to delete group")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Group deleted"})
}

func (s *Server) addMember(c *gin.Context) {
	user := currentUser(c)
	group, ok := s.loadGroup(c)
	if !ok {
		return
	}
	if !s.isGroupAdmin(group, user.ID) {
		fail(c, http.StatusForbidden, CodeForbidden, "Only admins can add members")
		return
	}

	var input addMemberInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "researcherId is required")
		return
	}

	role := input.Role
	if role == "" {
		role = store.RoleMember
	}
	if role != store.RoleAdmin && role != store.RoleMember {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Role must be admin or member")
		return
	}

	var target store.User
	if err := s.db.Where("researcher_id = ?", strings.TrimSpace(input.ResearcherID)).First(&target).Error; err != nil {
		fail(c, http.StatusNotFound, CodeNotFound, "User not found")
		return
	}

	if s.membership(group.ID, target.ID) != nil {
		fail(c, http.StatusConflict, CodeAlreadyExists, "User is already a member")
		return
	}

	member := store.GroupMembership{
		GroupID:  group.ID,
		UserID:   target.ID,
		Role:     role,
		JoinedAt: time.Now(),
	}
	if err := s.db.Create(&member).Error; err != nil {
		fail(c, http.StatusConflict, CodeAlreadyExists, "User is already a member")
		return
	}

	c.JSON(http.StatusCreated, s.membershipDTO(&member))
}

// removeMember removes a member. Admins and the owner can remove anyone but
// the owner; members can remove themselves. Removal revokes future reads of
// group-shared files but cannot rescind payloads already obtained.
func (s *Server) removeMember(c *gin.Context) {
	user := currentUser(c)
	group, ok := s.loadGroup(c)
	if !ok {
		return
	}

	var target store.User
	if err := s.db.Where("researcher_id = ?", c.Param("researcherId")).First(&target).Error; err != nil {
		fail(c, http.StatusNotFound, CodeNotFound, "Member not found")
		return
	}

	if target.ID == group.OwnerID {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "Cannot remove the group owner")
		return
	}
	if target.ID != user.ID && !s.isGroupAdmin(group, user.ID) {
		fail(c, http.StatusForbidden, CodeForbidden, "Only admins can remove members")
		return
	}

	res := s.db.Where("group_id = ? AND user_id = ?", group.ID, target.ID).Delete(&store.GroupMembership{})
	if res.RowsAffected == 0 {
		fail(c, http.StatusNotFound, CodeNotFound, "Member not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// getGroupPubkeys returns the Kyber public keys of every member that has
// one, for bulk encapsulation by the sharer.
func (s *Server) getGroupPubkeys(c *gin.Context) {
	user := currentUser(c)
	group, ok := s.loadGroup(c)
	if !ok {
		return
	}
	if s.membership(group.ID, user.ID) == nil && group.OwnerID != user.ID {
		fail(c, http.StatusForbidden, CodeForbidden, "Access denied")
		return
	}

	var members []store.GroupMembership
	s.db.Where("group_id = ?", group.ID).Find(&members)

	result := make([]gin.H, 0, len(members))
	for _, m := range members {
		var u store.User
		if err := s.db.First(&u, m.UserID).Error; err != nil {
			continue
		}
		if u.KyberPublicKey == "" {
			continue
		}
		result = append(result, gin.H{
			"userId":         u.ID,
			"researcherId":   u.ResearcherID,
			"kyberPublicKey": u.KyberPublicKey,
		})
	}
	c.JSON(http.StatusOK, result)
}

// shareFileWithGroup records a group fan-out: a mapping from researcher id
// to that member's wrapped-key payload. The whole mapping is validated
// first — every key must name a current member with a registered public key
// and carry an 800-byte payload — and the record lands in one transaction.
// Either all payloads become visible or none do.
func (s *Server) shareFileWithGroup(c *gin.Context) {
	user := currentUser(c)
	group, ok := s.loadGroup(c)
	if !ok {
		return
	}
	if !s.isGroupAdmin(group, user.ID) {
		fail(c, http.StatusForbidden, CodeForbidden, "Only group admins can share files")
		return
	}

	var input groupShareInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "fileId and kemCiphertexts are required")
		return
	}
	if len(input.KemCiphertexts) == 0 {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "kemCiphertexts must not be empty")
		return
	}

	var meta store.FileMetadata
	if err := s.db.First(&meta, input.FileID).Error; err != nil || meta.OwnerID != user.ID {
		fail(c, http.StatusNotFound, CodeNotFound, "File not found or access denied")
		return
	}

	// Validate the complete mapping before anything is written.
	for rid, payload := range input.KemCiphertexts {
		var member store.User
		if err := s.db.Where("researcher_id = ?", rid).First(&member).Error; err != nil {
			fail(c, http.StatusBadRequest, CodeInvalidInput, "Unknown researcher in mapping: "+rid)
			return
		}
		if s.membership(group.ID, member.ID) == nil {
			fail(c, http.StatusBadRequest, CodeInvalidInput, rid+" is not a member of this group")
			return
		}
		if member.KyberPublicKey == "" {
			fail(c, http.StatusBadRequest, CodeNoRecipientKey, rid+" has no Kyber public key registered")
			return
		}
		if err := validatePayload(payload); err != nil {
			fail(c, http.StatusBadRequest, CodeBadPayload, "Payload for "+rid+" must be an 800-byte KEM payload")
			return
		}
	}

	encoded, err := json.Marshal(input.KemCiphertexts)
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to encode mapping")
		return
	}

	var gfa store.GroupFileAccess
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Re-sharing the same file with the same group replaces the mapping.
		existing := store.GroupFileAccess{}
		lookupErr := tx.Where("file_id = ? AND group_id = ?", meta.ID, group.ID).First(&existing).Error
		if lookupErr == nil {
			if err := tx.Model(&existing).Update("kem_ciphertexts", string(encoded)).Error; err != nil {
				return err
			}
			gfa = existing
			gfa.KemCiphertexts = string(encoded)
			return nil
		}

		gfa = store.GroupFileAccess{
			FileID:         meta.ID,
			GroupID:        group.ID,
			SharedBy:       user.ID,
			KemCiphertexts: string(encoded),
			CreatedAt:      time.Now(),
		}
		if err := tx.Create(&gfa).Error; err != nil {
			return err
		}
		return tx.Create(&store.FileHistory{
			UserID:        user.ID,
			Name:          meta.FileName,
			OriginalSize:  meta.OriginalSize,
			EncryptedSize: meta.EncryptedSize,
			FileType:      "group-share",
			Operation:     "share",
			Timestamp:     time.Now(),
		}).Error
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to create group share")
		return
	}

	s.log.WithFields(map[string]interface{}{
		"file":    meta.ID,
		"group":   group.ID,
		"members": len(input.KemCiphertexts),
	}).Info("group share created")

	c.JSON(http.StatusCreated, s.groupShareDTO(&gfa, user))
}

func (s *Server) groupShareDTO(gfa *store.GroupFileAccess, viewer *store.User) gin.H {
	var meta store.FileMetadata
	s.db.First(&meta, gfa.FileID)

	var group store.Group
	s.db.First(&group, gfa.GroupID)

	var sharer store.User
	s.db.First(&sharer, gfa.SharedBy)

	dto := gin.H{
		"id":            gfa.ID,
		"fileId":        gfa.FileID,
		"fileName":      meta.FileName,
		"groupId":       gfa.GroupID,
		"groupName":     group.Name,
		"sharedBy":      sharer.ResearcherID,
		"contentType":   meta.ContentType,
		"originalSize":  meta.OriginalSize,
		"encryptedSize": meta.EncryptedSize,
		"sha256Hash":    meta.SHA256Hash,
		"iv":            meta.IV,
		"createdAt":     gfa.CreatedAt,
	}

	if payloads := memberPayloads(gfa); payloads != nil {
		if mine, ok := payloads[viewer.ResearcherID]; ok {
			dto["myKemCiphertext"] = mine
		}
	}
	return dto
}

// listGroupSharedFiles lists every group share visible to the caller, with
// the caller's own wrapped-key payload extracted from the mapping.
func (s *Server) listGroupSharedFiles(c *gin.Context) {
	user := currentUser(c)

	var memberships []store.GroupMembership
	if err := s.db.Where("user_id = ?", user.ID).Find(&memberships).Error; err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to list group shares")
		return
	}
	if len(memberships) == 0 {
		c.JSON(http.StatusOK, []gin.H{})
		return
	}

	ids := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.GroupID)
	}

	var accesses []store.GroupFileAccess
	if err := s.db.Where("group_id IN ?", ids).Find(&accesses).Error; err != nil {
		fail(c, http.StatusInternalServerError, CodeInternal, "Failed to list group shares")
		return
	}

	result := make([]gin.H, 0, len(accesses))
	for i := range accesses {
		result = append(result, s.groupShareDTO(&accesses[i], user))
	}
	c.JSON(http.StatusOK, result)
}
